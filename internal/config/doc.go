// Package config loads the attendance calculator's configuration.
//
// # Configuration Sources
//
// Values are applied in the following order, later sources winning:
//
//	1. Default values (Default)
//	2. YAML file: ATTEND_CONFIG_FILE, ./config.yaml or ./configs/config.yaml
//	3. Environment variables, including those read from ./.env
//
// # Environment Variables
//
// Variables use the ATTEND prefix and follow the struct nesting:
//
//	ATTEND_SERVER_PORT=8080
//	ATTEND_LOGGING_LEVEL=debug
//	ATTEND_PATHS_MAPPING_FILE=/var/lib/attendcalc/module_mappings.json
//	ATTEND_ATTENDANCE_POLICY_MIN_PERCENT=80
//	ATTEND_ATTENDANCE_MATCH_IGNORE_SPACES=true
//	ATTEND_FETCH_DEFAULT_URL=https://example.sharepoint.com/:x:/g/personal/user/ID
//
// Named download sources can only be listed in the YAML file:
//
//	fetch:
//	  sources:
//	    - name: batch-a
//	      url: https://example.sharepoint.com/:x:/g/personal/user/ID?e=abc
//
// # Paths
//
// Relative paths are resolved against paths.base_dir, which defaults to
// the working directory. The mapping file therefore lives next to where the
// tool is run unless configured otherwise.
//
// # Validation
//
// Load validates the result with go-playground/validator struct tags.
package config
