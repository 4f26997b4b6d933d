package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldJobID is the standardized structured logging key for job identifiers.
	FieldJobID = "job_id"
	// FieldWorkUnit is the standardized structured logging key for work-unit identifiers.
	FieldWorkUnit = "work_unit"
	// FieldStage is the standardized structured logging key for pipeline stage names.
	FieldStage = "stage"
	// FieldAction is the standardized structured logging key for scheduled action names.
	FieldAction = "action"
	// FieldRunID is the standardized structured logging key for pipeline run correlation ids.
	FieldRunID = "run_id"
)
