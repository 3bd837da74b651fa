package similarity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadCSV(t *testing.T) {
	input := `;this is a comment
;phoneme|AH|B
[T\A]|AH|B
a|1.0|0.3
b| |1.0
`
	m, err := LoadCSV(strings.NewReader(input))
	require.NoError(t, err)

	require.Equal(t, 1.0, m.GetScore("AH", "a"))
	require.Equal(t, 0.3, m.GetScore("B", "a"))
	require.Equal(t, ScoreDefault, m.GetScore("AH", "b"))
	require.Equal(t, 1.0, m.GetScore("B", "b"))
}

func TestLoadCSVMissingHeader(t *testing.T) {
	_, err := LoadCSV(strings.NewReader("a|1.0\n"))
	require.Error(t, err)
}

func TestLoadCSVDuplicateHeader(t *testing.T) {
	input := `[T\A]|AH
a|1.0
[T\A]|AH
`
	_, err := LoadCSV(strings.NewReader(input))
	require.Error(t, err)
}

func TestLoadCSVDuplicateText(t *testing.T) {
	input := `[T\A]|AH
a|1.0
a|0.5
`
	_, err := LoadCSV(strings.NewReader(input))
	require.Error(t, err)
}

func TestLoadCSVOutOfRangeScore(t *testing.T) {
	input := `[T\A]|AH
a|9.9
`
	_, err := LoadCSV(strings.NewReader(input))
	require.Error(t, err)
}
