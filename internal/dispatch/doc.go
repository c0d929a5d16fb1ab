// Package dispatch executes outbound deliveries.
//
// The safety contract lives here: no actuator call ever happens for an
// agent whose coordinate failed validation, and no actuator failure (error
// or panic) ever escapes as anything but a false result.
package dispatch
