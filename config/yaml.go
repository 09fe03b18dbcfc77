package config

import (
	"reflect"
	"strings"

	"github.com/kisa-team/gonka-wallet/log"
	"gopkg.in/yaml.v2"
)

// WriteYamlWithComments writes config as yaml, placing each field's `comment` tag above it.
func WriteYamlWithComments(config interface{}, header string, filename string, logger *log.Logger) error {
	fileData, err := addCommentsToYaml(config, header)
	if err != nil {
		return err
	}

	return SafeWrite(filename, fileData, logger)
}

func addCommentsToYaml(config interface{}, header string) ([]byte, error) {
	data, err := yaml.Marshal(config)
	if err != nil {
		return nil, err
	}

	var result strings.Builder
	if header != "" {
		result.WriteString("# " + header + "\n")
	}

	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	yamlStr := string(data)
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)

		yamlTag := strings.Split(field.Tag.Get("yaml"), ",")[0]
		comment := field.Tag.Get("comment")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Match on a line start so that "delay" does not match inside "poll_delay".
		lineStart := indexOfKey(yamlStr, yamlTag)
		if lineStart < 0 {
			continue
		}

		lineEnd := strings.Index(yamlStr[lineStart:], "\n")
		if lineEnd < 0 {
			lineEnd = len(yamlStr)
		} else {
			lineEnd += lineStart
		}

		result.WriteString(yamlStr[:lineStart])
		if comment != "" {
			result.WriteString("\n# " + comment + "\n")
		}
		result.WriteString(yamlStr[lineStart:lineEnd])
		yamlStr = yamlStr[lineEnd:]
	}

	result.WriteString(yamlStr)
	return []byte(result.String()), nil
}

func indexOfKey(yamlStr, key string) int {
	if strings.HasPrefix(yamlStr, key+":") {
		return 0
	}
	idx := strings.Index(yamlStr, "\n"+key+":")
	if idx < 0 {
		return -1
	}
	return idx + 1
}
