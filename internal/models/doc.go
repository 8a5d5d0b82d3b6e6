// Package models defines the three-species food chain studied by popsim.
//
// The prey x1 grows logistically, the intermediate predator x2 feeds on x1
// and is eaten by the top predator x3:
//
//	dx1/dt = x1 (bd1 - a11 x1 - a12 x2)
//	dx2/dt = x2 (-d2 + a21 x1 - a22 x2 - a23 x3)
//	dx3/dt = x3 (-d3 + a32 x2 - a33 x3)
//
// [Coefficients] carries the ten rates and the three initial populations.
// [Predict] solves for the interior equilibrium in closed form and
// [FoodChain] adapts the vector field to [dynamo.System].
package models
