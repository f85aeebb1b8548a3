package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/paytest/pkg/batch/support/util/configbinder"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

const moduleName = "config"

var durationType = reflect.TypeOf(time.Duration(0))

// LoadConfig builds the configuration in four layers:
//  1. defaults from NewConfig
//  2. the YAML file at configPath, if any, with ${VAR} placeholders expanded
//  3. variables from the .env file at envFilePath (or ./.env), which never override the real environment
//  4. environment variables named after the yaml tags, e.g. PAYTEST_SCHEDULER_POOL_SIZE
//
// The result is validated; every error returned is a KindConfig BatchError.
func LoadConfig(envFilePath, configPath string) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else if err := godotenv.Load(); err != nil {
		logger.Debugf(".env file not found or could not be loaded: %v", err)
	}

	cfg := NewConfig()

	if configPath != "" {
		raw, err := os.ReadFile(configPath)
		if err != nil {
			return nil, exception.NewBatchErrorf(moduleName, exception.KindConfig, "failed to read config file %s", configPath, err)
		}
		if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), cfg); err != nil {
			return nil, exception.NewBatchErrorf(moduleName, exception.KindConfig, "failed to unmarshal config file %s", configPath, err)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewBatchError(moduleName, exception.KindConfig, "failed to load config from environment variables", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyConnectionString binds a "host;user;password" argument onto the connection settings.
// Empty parts leave the configured value untouched.
func (c *Config) ApplyConnectionString(connection string) error {
	parts := strings.Split(connection, ";")
	keys := []string{"host", "user", "password"}
	props := make(map[string]interface{}, len(keys))
	for i, key := range keys {
		if i < len(parts) && parts[i] != "" {
			props[key] = parts[i]
		}
	}
	if len(parts) > len(keys) {
		logger.Warnf("Connection string has %d parts, only host;user;password are used.", len(parts))
	}
	if err := configbinder.BindProperties(props, &c.Paytest.Connection); err != nil {
		return exception.NewBatchError(moduleName, exception.KindConfig, "invalid connection string", err)
	}
	return nil
}

// Validate checks the values that cannot be defaulted away.
func (c *Config) Validate() error {
	p := &c.Paytest
	if _, err := c.Location(); err != nil {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "unknown timezone '%s'", p.System.Timezone, err)
	}
	if p.Scheduler.PoolSize <= 0 {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "scheduler.pool_size must be positive, got %d", p.Scheduler.PoolSize)
	}
	if p.Scheduler.DrainTimeout <= 0 {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "scheduler.drain_timeout must be positive, got %s", p.Scheduler.DrainTimeout)
	}
	if p.Results.QueueCapacity <= 0 {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "results.queue_capacity must be positive, got %d", p.Results.QueueCapacity)
	}
	if p.Results.OfferTimeout <= 0 {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "results.offer_timeout must be positive, got %s", p.Results.OfferTimeout)
	}
	if p.Job.DefaultPortionSize <= 0 {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "job.default_portion_size must be positive, got %d", p.Job.DefaultPortionSize)
	}
	switch p.Connection.Mode {
	case ConnectionModeHTTP, ConnectionModeSimulate:
	default:
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "unknown connection.mode '%s'", p.Connection.Mode)
	}
	for key, protocol := range map[string]string{"metrics.protocol": p.Metrics.Protocol, "tracing.protocol": p.Tracing.Protocol} {
		if protocol != ExportProtocolHTTP && protocol != ExportProtocolGRPC {
			return exception.NewBatchErrorf(moduleName, exception.KindConfig, "unknown %s '%s'", key, protocol)
		}
	}
	if p.Metrics.OTLPEndpoint != "" && p.Metrics.ExportInterval <= 0 {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "metrics.export_interval must be positive, got %s", p.Metrics.ExportInterval)
	}
	return nil
}

// ValidateConnection checks that the remote service can be addressed. Simulated runs need no host.
func (c *Config) ValidateConnection() error {
	conn := c.Paytest.Connection
	if conn.Mode == ConnectionModeHTTP && conn.Host == "" {
		return exception.NewBatchErrorf(moduleName, exception.KindConfig, "missing connection host")
	}
	return nil
}

// loadStructFromEnv recursively loads configuration values into a struct from environment variables.
// It uses the "yaml" tag to build the variable name, joined with "_" and upper-cased.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets a field from its string form. Durations use time.ParseDuration syntax ("2s", "1m30s").
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
