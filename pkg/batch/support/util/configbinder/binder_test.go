package configbinder_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/paytest/pkg/batch/support/util/configbinder"
)

type target struct {
	Host    string        `yaml:"host"`
	Port    int           `yaml:"port"`
	Timeout time.Duration `yaml:"timeout"`
	Keep    string        `yaml:"keep"`
}

func TestBindProperties(t *testing.T) {
	tgt := target{Keep: "unchanged"}
	err := configbinder.BindProperties(map[string]interface{}{
		"host":    "svc.local",
		"port":    "8443",
		"timeout": "3s",
	}, &tgt)
	require.NoError(t, err)

	assert.Equal(t, "svc.local", tgt.Host)
	assert.Equal(t, 8443, tgt.Port)
	assert.Equal(t, 3*time.Second, tgt.Timeout)
	assert.Equal(t, "unchanged", tgt.Keep)
}

func TestBindProperties_InvalidValue(t *testing.T) {
	var tgt target
	err := configbinder.BindProperties(map[string]interface{}{"port": "not-a-number"}, &tgt)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "target")
}

func TestBindProperties_EmptyIsNoop(t *testing.T) {
	tgt := target{Host: "x"}
	assert.NoError(t, configbinder.BindProperties(nil, &tgt))
	assert.Equal(t, "x", tgt.Host)
}
