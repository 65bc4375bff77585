// Package forest implements the supervised learning collaborator used by
// the classifier facade: CART decision trees grown on Gini impurity, a
// bagged random forest over them, a standard scaler, classification
// metrics, and a cross-validated grid search over forest hyperparameters.
//
// The implementation is intentionally plain. Trees are stored as flat node
// slices with exported fields so a fitted forest can be serialized with
// encoding/gob and restored without custom marshalling.
//
// Fitting is deterministic for a given Params.Seed regardless of how many
// trees are grown in parallel: every tree derives its own random stream from
// the seed and its index.
package forest
