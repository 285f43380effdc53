package monte

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type scripted struct {
	outcomes []bool
	i        int
	accepted []int
	rejected []int
}

func (s *scripted) Propose() int { s.i++; return s.i }
func (s *scripted) Check(e int) bool { return s.outcomes[e-1] }
func (s *scripted) Accept(e int) { s.accepted = append(s.accepted, e) }
func (s *scripted) Reject(e int) { s.rejected = append(s.rejected, e) }

func TestStep(t *testing.T) {
	s := &scripted{outcomes: []bool{true, false, true}}
	assert.True(t, Step[int](s))
	assert.False(t, Step[int](s))
	assert.True(t, Step[int](s))
	assert.Equal(t, []int{1, 3}, s.accepted)
	assert.Equal(t, []int{2}, s.rejected)
}

func TestNewRand_SameSeedSameStream(t *testing.T) {
	a, b := NewRand(42), NewRand(42)
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, NewRand(1).Uint64(), NewRand(2).Uint64())
}

func TestError(t *testing.T) {
	err := Errorf(ErrCodeConditionsChanged, "temperature differs").AtCondition(2).InFile("out/conditions.2/conditions.json")
	assert.Equal(t, "CONDITIONS_CHANGED: temperature differs (condition=2, file=out/conditions.2/conditions.json)", err.Error())
	assert.True(t, IsCode(err, ErrCodeConditionsChanged))
	assert.False(t, IsCode(err, ErrCodeNoOutputFormat))

	plain := Errorf(ErrCodeNoOutputFormat, "none").ForSetting("data/storage/output_format")
	assert.Equal(t, "NO_OUTPUT_FORMAT: none (setting=data/storage/output_format)", plain.Error())
}
