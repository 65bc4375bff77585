// Package classifier wraps the random forest in a stateful facade that
// owns training, prediction, persistence and model metadata.
//
// A Facade starts untrained. Train or Load moves it to the trained state;
// every prediction, Save and FeatureImportance call before that fails with
// model.ErrNotTrained. Two variants are provided: NewNetworkModel, which
// standardizes features before the forest and persists the scaler, and
// NewPhishingModel, which feeds raw URL features to a larger forest.
//
// On disk a trained model is a directory holding model.pkl (the gob-encoded
// forest), scaler.pkl for the network variant and model_metadata.json.
// Load also accepts a single gob file containing only the forest.
package classifier
