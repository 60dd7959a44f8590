package utils

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// DecodeJSON converts a datatypes.JSON column into T. An empty column
// yields the zero value.
func DecodeJSON[T any](jsonData datatypes.JSON) (T, error) {
	var result T
	if len(jsonData) == 0 {
		return result, nil
	}
	err := json.Unmarshal(jsonData, &result)
	return result, err
}

// EncodeJSON converts v into a datatypes.JSON column value.
func EncodeJSON(v interface{}) (datatypes.JSON, error) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(jsonData), nil
}
