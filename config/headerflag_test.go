package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestHeaderFlagSet(t *testing.T) {
	for _, tc := range []struct {
		name   string
		args   []string
		values string
		err    bool
	}{
		{
			name:   "single value",
			args:   []string{"user-agent"},
			values: "User-Agent",
		},
		{
			name:   "multiple values",
			args:   []string{"User-Agent", "accept", "x-tenant"},
			values: "User-Agent Accept X-Tenant",
		},
		{
			name: "empty name",
			args: []string{""},
			err:  true,
		},
		{
			name: "invalid name",
			args: []string{"X Tenant"},
			err:  true,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := &headerFlag{}
			for _, a := range tc.args {
				err := f.Set(a)
				if tc.err {
					assert.Error(t, err)
					return
				}

				require.NoError(t, err)
			}

			assert.Equal(t, tc.values, f.String())
		})
	}
}

func TestHeaderFlagYaml(t *testing.T) {
	f := &headerFlag{"Dropped"}
	require.NoError(t, yaml.Unmarshal([]byte("- accept\n- X-Tenant"), f))
	assert.Equal(t, headerFlag{"Accept", "X-Tenant"}, *f)
}

func TestHeaderFlagYamlErr(t *testing.T) {
	for _, input := range []string{`-foo=bar`, "- \"X Tenant\""} {
		f := &headerFlag{}
		assert.Error(t, yaml.Unmarshal([]byte(input), f), "input: %q", input)
	}
}
