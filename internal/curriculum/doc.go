// Package curriculum is the prerequisite graph engine behind the insight
// endpoints: entity snapshots, graph validation, per-student status rules,
// recommendations and graduation path planning.
//
// Everything here is pure computation over immutable snapshots. Fetching the
// data and persisting changes happen in the service layer.
package curriculum
