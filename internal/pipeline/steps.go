// Package pipeline drives the training pipeline end to end: it resolves
// step parameters from the loaded config, prepares a scoped run workspace,
// and submits each selected step to a unit runner in registry order.
package pipeline

// paramRef binds one entry point parameter to a config path.
type paramRef struct {
	name string
	path string
}

// fileRef declares a config subtree that is serialized to a JSON file in
// the run workspace and handed to the unit as a file path parameter.
type fileRef struct {
	name string
	path string
	file string
}

// stepSpec declares one pipeline step: where its unit lives, which config
// values feed its parameters, and whether "all" includes it.
type stepSpec struct {
	name   string
	remote bool
	unit   string
	params []paramRef
	files  []fileRef

	// excluded steps never run as part of "all"; they must be named
	// explicitly. Used for steps with external preconditions, such as
	// promoting a model to production first.
	excluded bool
}

// registry lists every known step in execution order. Step selection is a
// membership test against this list and never reorders it.
var registry = []stepSpec{
	{
		name:   "download",
		remote: true,
		unit:   "get_data",
		params: []paramRef{
			{name: "sample", path: "etl.sample"},
			{name: "artifact_name", path: "m_params.download.artifact_name"},
			{name: "artifact_type", path: "m_params.download.artifact_type"},
			{name: "artifact_description", path: "m_params.download.artifact_description"},
		},
	},
	{
		name: "basic_cleaning",
		unit: "basic_cleaning",
		params: []paramRef{
			{name: "input_artifact", path: "m_params.basic_cleaning.input_artifact"},
			{name: "output_artifact", path: "m_params.basic_cleaning.output_artifact"},
			{name: "output_type", path: "m_params.basic_cleaning.output_type"},
			{name: "output_description", path: "m_params.basic_cleaning.output_description"},
			{name: "min_price", path: "etl.min_price"},
			{name: "max_price", path: "etl.max_price"},
		},
	},
	{
		name: "data_check",
		unit: "data_check",
		params: []paramRef{
			{name: "csv", path: "m_params.data_check.csv"},
			{name: "ref", path: "m_params.data_check.ref"},
			{name: "kl_threshold", path: "data_check.kl_threshold"},
			{name: "min_price", path: "etl.min_price"},
			{name: "max_price", path: "etl.max_price"},
		},
	},
	{
		name:   "data_split",
		remote: true,
		unit:   "train_val_test_split",
		params: []paramRef{
			{name: "input", path: "m_params.data_split.input"},
			{name: "test_size", path: "modeling.test_size"},
			{name: "random_seed", path: "modeling.random_seed"},
			{name: "stratify_by", path: "modeling.stratify_by"},
		},
	},
	{
		name: "train_random_forest",
		unit: "train_random_forest",
		params: []paramRef{
			{name: "trainval_artifact", path: "m_params.train_random_forest.trainval_artifact"},
			{name: "val_size", path: "modeling.val_size"},
			{name: "random_seed", path: "modeling.random_seed"},
			{name: "stratify_by", path: "modeling.stratify_by"},
			{name: "max_tfidf_features", path: "modeling.max_tfidf_features"},
			{name: "output_artifact", path: "m_params.train_random_forest.output_artifact"},
		},
		files: []fileRef{
			{name: "rf_config", path: "modeling.random_forest", file: "rf_config.json"},
		},
	},
	{
		name:   "test_regression_model",
		remote: true,
		unit:   "test_regression_model",
		params: []paramRef{
			{name: "mlflow_model", path: "m_params.test_regression_model.mlflow_model"},
			{name: "test_dataset", path: "m_params.test_regression_model.test_dataset"},
		},
		excluded: true,
	},
}

// StepNames returns the registry step names in execution order.
func StepNames() []string {
	names := make([]string, 0, len(registry))
	for _, s := range registry {
		names = append(names, s.name)
	}
	return names
}
