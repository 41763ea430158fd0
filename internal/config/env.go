package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var durationType = reflect.TypeOf(time.Duration(0))

// LoadEnv overrides config values with the environment variables named in
// the `env` tags of every section of AppConfig.
func LoadEnv(config *AppConfig) error {
	root := reflect.ValueOf(config).Elem()

	var applied []string
	for i := 0; i < root.NumField(); i++ {
		section := root.Field(i)
		if section.Kind() != reflect.Struct {
			continue
		}

		names, err := processStructEnv(section.Addr().Interface())
		if err != nil {
			return err
		}
		applied = append(applied, names...)
	}

	// Names only: several of these carry secrets
	log.Debug().Strs("variables", applied).Msg("Environment overrides applied")
	return nil
}

// processStructEnv sets the fields of the struct s points to from their
// `env` variables and returns the names of the variables that were set.
func processStructEnv(s interface{}) ([]string, error) {
	val := reflect.ValueOf(s).Elem()
	typ := val.Type()

	var applied []string
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		envName := field.Tag.Get("env")
		if envName == "" || !val.Field(i).CanSet() {
			continue
		}

		raw, ok := os.LookupEnv(envName)
		if !ok {
			continue
		}

		if err := setField(val.Field(i), raw); err != nil {
			return nil, fmt.Errorf("invalid value for %s: %w", envName, err)
		}
		applied = append(applied, envName)
	}

	return applied, nil
}

func setField(v reflect.Value, raw string) error {
	if v.Type() == durationType {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return err
		}
		v.SetInt(int64(d))
		return nil
	}

	switch v.Kind() {
	case reflect.String:
		v.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(raw, 10, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetUint(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(raw, v.Type().Bits())
		if err != nil {
			return err
		}
		v.SetFloat(f)
	case reflect.Slice:
		if v.Type().Elem().Kind() != reflect.String {
			return fmt.Errorf("unsupported slice type %s", v.Type())
		}
		v.Set(reflect.ValueOf(splitList(raw)))
	default:
		return fmt.Errorf("unsupported field type %s", v.Type())
	}
	return nil
}

// splitList parses a comma separated list, dropping empty entries.
func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
