package syncproto

// Table names as they appear in the "changes" object.
const (
	TableProjects     = "projects"
	TableDrawings     = "drawings"
	TableObservations = "observations"
)

// WritableTables are the tables clients may push. Everything else is a
// server-managed broadcast source and is ignored on push.
var WritableTables = map[string]bool{
	TableObservations: true,
}
