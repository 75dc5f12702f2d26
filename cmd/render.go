// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"

	"sigs.k8s.io/yaml"
)

// render prints v as indented JSON, or as YAML (via a JSON round-trip, the
// same approach sigs.k8s.io/yaml is built for) when format is "yaml".
func render(v any, format string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	if format == "yaml" {
		data, err = yaml.JSONToYAML(data)
		if err != nil {
			return err
		}
	}

	fmt.Println(string(data))
	return nil
}
