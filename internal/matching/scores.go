package matching

// Match score constants. Higher scores indicate a more specific
// candidate; specificity only breaks ties after priority, per the
// ranking order in Select.
const (
	// ScoreMetadataKey is awarded once per metadata key the candidate's
	// when.metadata requires, all of which must also match.
	ScoreMetadataKey = 1

	// ScoreRequestLeaf is awarded once per when.request leaf compared,
	// all of which must also match. This is also the Matcher's
	// "specificity" count used as the tiebreak after priority.
	ScoreRequestLeaf = 1
)
