package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// rawApiCatalog mirrors automax_webAPIConfig.json's top-level shape.
type rawApiCatalog struct {
	Result []ApiSpec `json:"result"`
}

// loadApiCatalog reads and parses the API catalog file.
func loadApiCatalog(path string) ([]ApiSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read api catalog: %w", err)
	}

	var raw rawApiCatalog
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse api catalog: %w", err)
	}

	return raw.Result, nil
}
