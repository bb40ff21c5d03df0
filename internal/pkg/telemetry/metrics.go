package telemetry

// Span and attribute names shared by the pipeline and map view.
const (
	TracerName = "github.com/samirrijal/geosurvey"

	SpanImportSubmit = "import.submit"
	SpanImportCommit = "import.commit"
	SpanMapBuild     = "map.build"

	AttrProjectID = "survey.project_id"
	AttrRows      = "survey.rows"
	AttrOutcome   = "survey.outcome"
)
