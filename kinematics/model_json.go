package kinematics

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// ModelConfigJSON represents all supported fields in a kinematics JSON file.
// Lengths are mm and angles radians.
type ModelConfigJSON struct {
	Name         string    `json:"name"`
	KinParamType string    `json:"kinematic_param_type,omitempty"`
	DHParams     []DHParam `json:"dhParams"`
}

// UnmarshalModelJSON will parse the given JSON data into a kinematics model. modelName sets the name of the model,
// will use the name from the JSON if string is empty.
func UnmarshalModelJSON(jsonData []byte, modelName string) (*Model, error) {
	if len(jsonData) == 0 {
		return nil, ErrNoModelInformation
	}
	cfg := &ModelConfigJSON{}
	if err := json.Unmarshal(jsonData, cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}
	return cfg.ParseConfig(modelName)
}

// ParseConfig converts the ModelConfigJSON struct into a Model with the name modelName.
func (cfg *ModelConfigJSON) ParseConfig(modelName string) (*Model, error) {
	if modelName == "" {
		modelName = cfg.Name
	}
	switch cfg.KinParamType {
	case "DH", "":
	default:
		return nil, errors.Errorf("unsupported param type: %s, only modified DH is supported", cfg.KinParamType)
	}
	return NewModel(modelName, cfg.DHParams)
}

// ParseModelJSONFile will read a given file and then parse the contained JSON data.
func ParseModelJSONFile(filename, modelName string) (*Model, error) {
	//nolint:gosec
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}
	return UnmarshalModelJSON(jsonData, modelName)
}
