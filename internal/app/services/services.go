package services

// Services defined in this package:
// - SnapshotService: keeps the curriculum snapshot fresh from the academic records API
// - InsightsService: prerequisite graph, recommendations, graduation path and progress
// - StatusService: discipline status reads, validated changes and their history
// - CurriculumService: catalog reads, prerequisite additions and membership reconciliation

// Services groups the service instances handed to the controllers
type Services struct {
	Snapshot   SnapshotService
	Insights   InsightsService
	Status     StatusService
	Curriculum CurriculumService
}
