package domain

// ModelID identifies one of the trained classifiers.
type ModelID string

const (
	ModelLogistic     ModelID = "lr"
	ModelRandomForest ModelID = "rf"
	ModelLasso        ModelID = "l1"
	ModelRidge        ModelID = "l2"
)

// DefaultModel is selected for new sessions.
const DefaultModel = ModelLasso
