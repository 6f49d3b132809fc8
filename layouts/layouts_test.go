package layouts

import (
	"testing"

	"github.com/dargueta/sstfs/file_systems/sst"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	layout, err := Get("stm32l562e-dk-its")
	require.NoError(t, err)

	assert.Equal(t, "STM32L562E-DK ITS area", layout.Name)
	assert.Equal(
		t,
		sst.Config{
			BlockSize:        2048,
			TotalBlocks:      4,
			ProgramUnit:      8,
			MaxObjectSize:    512,
			MaxNumObjects:    10,
			ValidateMetadata: true,
		},
		layout.Config)
	assert.EqualValues(t, 8192, layout.TotalSizeBytes())
}

func TestGetConfig(t *testing.T) {
	cfg, err := GetConfig("two-block-test")
	require.NoError(t, err)

	g, err := sst.NewGeometry(cfg)
	require.NoError(t, err)
	assert.Equal(t, sst.VariantTwoBlock, g.Variant)
}

func TestGetUnknown(t *testing.T) {
	_, err := Get("no-such-layout")
	assert.ErrorContains(t, err, "no-such-layout")
}

func TestAllSortedAndValid(t *testing.T) {
	all := All()
	require.NotEmpty(t, all)

	for i, layout := range all {
		if i > 0 {
			assert.Less(t, all[i-1].Slug, layout.Slug)
		}
		assert.NoErrorf(t, layout.Config.Validate(), "layout %q", layout.Slug)
	}
}

func TestParseLayoutsRejectsDuplicates(t *testing.T) {
	rawCSV := "slug|name|block_size|total_blocks|program_unit|max_object_size|max_num_objects|validate_metadata|notes\n" +
		"a|A|1024|2|4|256|8|true|\n" +
		"a|B|1024|2|4|256|8|true|\n"

	_, err := parseLayouts(rawCSV)
	assert.ErrorContains(t, err, `duplicate definition for layout "a"`)
}

func TestParseLayoutsRejectsInvalidConfig(t *testing.T) {
	rawCSV := "slug|name|block_size|total_blocks|program_unit|max_object_size|max_num_objects|validate_metadata|notes\n" +
		"bad|Bad|1024|3|4|256|8|true|\n"

	_, err := parseLayouts(rawCSV)
	assert.ErrorContains(t, err, `layout "bad" on row 1`)
}
