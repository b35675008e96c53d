package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestListFlag(t *testing.T) {
	const yamlList = `- 10.0.0.0/8
- 192.168.0.0/16
- 127.0.0.1`

	expected := []string{"10.0.0.0/8", "192.168.0.0/16", "127.0.0.1"}

	t.Run("custom separator", func(t *testing.T) {
		current := newListFlag(" ")
		require.NoError(t, current.Set("10.0.0.0/8 192.168.0.0/16 127.0.0.1"))
		if d := cmp.Diff(expected, current.values); d != "" {
			t.Errorf("failed to parse flags:\n%s", d)
		}

		require.NoError(t, yaml.Unmarshal([]byte(yamlList), current))
		if d := cmp.Diff(expected, current.values); d != "" {
			t.Errorf("failed to parse yaml:\n%s", d)
		}

		assert.Equal(t, "10.0.0.0/8 192.168.0.0/16 127.0.0.1", current.value, "invalid value composed by yaml parser")
	})

	t.Run("comma separator", func(t *testing.T) {
		f := commaListFlag()
		require.NoError(t, f.Set("10.0.0.0/8,192.168.0.0/16,127.0.0.1"))
		assert.Equal(t, expected, f.values)
		assert.Equal(t, "10.0.0.0/8,192.168.0.0/16,127.0.0.1", f.String())
	})

	t.Run("restricted values", func(t *testing.T) {
		t.Run("good", func(t *testing.T) {
			current := commaListFlag("standard", "ulid", "none")
			require.NoError(t, current.Set("standard,ulid"))
			assert.Equal(t, []string{"standard", "ulid"}, current.values)

			require.NoError(t, yaml.Unmarshal([]byte("- none"), current))
			assert.Equal(t, []string{"none"}, current.values)
		})

		t.Run("bad", func(t *testing.T) {
			current := commaListFlag("standard", "ulid")
			assert.Error(t, current.Set("standard,uuid"))
			assert.Error(t, yaml.Unmarshal([]byte("- uuid"), current))
		})
	})

	t.Run("unmarshal error", func(t *testing.T) {
		const input = "invalid yaml"
		current := commaListFlag()
		assert.Error(t, yaml.Unmarshal([]byte(input), current), "input: %q", input)
	})

	t.Run("empty value", func(t *testing.T) {
		f := commaListFlag()
		require.NoError(t, f.Set("10.0.0.0/8"))
		require.NoError(t, f.Set(""))
		assert.Empty(t, f.value)
		assert.Nil(t, f.values)
	})

	t.Run("nil flag", func(t *testing.T) {
		var f *listFlag
		assert.NoError(t, f.Set("10.0.0.0/8"))
		assert.Empty(t, f.String())
	})
}
