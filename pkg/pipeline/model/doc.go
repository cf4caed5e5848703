// Package model provides the data structures shared by the pipeline package and its options.
// It defines the description of a step as seen by pipeline options, the run status,
// the result of a run and the option interface itself.
package model
