package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/popsim/internal/dynamo"
	"github.com/san-kum/popsim/internal/sim"
)

var csvHeader = []string{"t", "x1", "x2", "x3"}

type ExportData struct {
	Run    RunMetadata `json:"run"`
	Times  []float64   `json:"t"`
	X1     []float64   `json:"x1"`
	X2     []float64   `json:"x2"`
	X3     []float64   `json:"x3"`
	Points int         `json:"points"`
}

func ExportJSON(w io.Writer, meta RunMetadata, tr sim.Trajectory) error {
	data := ExportData{
		Run:    meta,
		Times:  tr.Times,
		X1:     tr.Series(0),
		X2:     tr.Series(1),
		X3:     tr.Series(2),
		Points: tr.Len(),
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ExportCSV writes a t,x1,x2,x3 table. Values use the shortest
// representation that parses back to the same float64.
func ExportCSV(w io.Writer, tr sim.Trajectory) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	row := make([]string, len(csvHeader))
	for i, s := range tr.States {
		if len(s) != 3 {
			return fmt.Errorf("sample %d: %w", i, dynamo.ErrDimensionMismatch)
		}
		row[0] = strconv.FormatFloat(tr.Times[i], 'g', -1, 64)
		for j, v := range s {
			row[j+1] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func ReadCSV(r io.Reader) (sim.Trajectory, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	records, err := cr.ReadAll()
	if err != nil {
		return sim.Trajectory{}, err
	}
	if len(records) == 0 {
		return sim.Trajectory{}, fmt.Errorf("empty trajectory file")
	}

	tr := sim.Trajectory{
		Times:  make([]float64, 0, len(records)-1),
		States: make([]dynamo.State, 0, len(records)-1),
	}
	for i, record := range records[1:] {
		vals := make([]float64, len(record))
		for j, field := range record {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return sim.Trajectory{}, fmt.Errorf("row %d: %w", i+1, err)
			}
			vals[j] = v
		}
		tr.Times = append(tr.Times, vals[0])
		tr.States = append(tr.States, dynamo.State(vals[1:]))
	}
	return tr, nil
}
