package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// LoadConfig sets flags from a YAML mapping of flag names to values. Flags
// already set on the command line or from the environment are left alone.
// Lists become comma-separated values.
func LoadConfig(fs *flag.FlagSet, filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	var values map[string]interface{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return errors.Wrapf(err, "parse config %q", filename)
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		f := fs.Lookup(name)
		if f == nil {
			return errors.Errorf("config %q: unknown flag %q", filename, name)
		}
		if f.Changed {
			continue
		}

		if err := fs.Set(name, configValue(values[name])); err != nil {
			return errors.Wrapf(err, "config %q: flag %q", filename, name)
		}
	}

	return nil
}

func configValue(v interface{}) string {
	list, ok := v.([]interface{})
	if !ok {
		return fmt.Sprint(v)
	}

	values := make([]string, len(list))
	for idx, item := range list {
		values[idx] = fmt.Sprint(item)
	}
	return strings.Join(values, ",")
}
