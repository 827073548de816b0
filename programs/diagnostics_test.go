package programs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFailingLine(t *testing.T) {
	assert.Equal(t, 12, failingLine("ERROR: 0:12: 'foo' : undeclared identifier"))
	assert.Equal(t, 7, failingLine("0(7) : error C1008: undefined variable"))
	assert.Equal(t, 0, failingLine("link failed"))
}

func TestExcerptMarksLine(t *testing.T) {
	src := "a\nb\nc\nd\ne\nf\ng\nh\ni\nj\nk\nl\nm\nn\no"
	got := excerpt(src, 8)
	assert.Equal(t, "  2: b\n  3: c\n  4: d\n  5: e\n  6: f\n  7: g\n> 8: h\n  9: i\n  10: j\n  11: k\n  12: l\n  13: m\n  14: n\n", got)

	assert.Equal(t, "> 1: a\n  2: b\n", excerpt("a\nb", 1))
	assert.Empty(t, excerpt(src, 0))
	assert.Empty(t, excerpt(src, 99))
}

func TestCompileErrorTrimsLog(t *testing.T) {
	e := compileError("vertex", "k", "x\ny", "ERROR: 0:2: bad\n\x00")
	assert.Equal(t, "ERROR: 0:2: bad", e.Log)
	assert.Equal(t, 2, e.Line)
	assert.Contains(t, e.Context, "> 2: y")
}
