package bot

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		want Command
	}{
		{text: "/buy", want: Command{Name: "buy", Args: []string{}}},
		{text: "  /BUY@PaperBot btc   100 ", want: Command{Name: "buy", Args: []string{"btc", "100"}}},
		{text: "/log", want: Command{Name: "log", Args: []string{}}},
		{text: "buy btc", want: Command{}},
		{text: "", want: Command{}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCommand(tt.text))
		})
	}
}

func TestParseTradeArgs(t *testing.T) {
	req, err := parseTradeArgs(nil)
	require.NoError(t, err)
	assert.Equal(t, tradeRequest{}, req)

	req, err = parseTradeArgs([]string{"0.5", "eth", "qty"})
	require.NoError(t, err)
	assert.Equal(t, "eth", req.Symbol)
	assert.True(t, d("0.5").Equal(req.Amount))
	assert.True(t, req.HasAmount)
	assert.Equal(t, modeQuantity, req.Mode)

	req, err = parseTradeArgs([]string{"btc", "$250", "cash"})
	require.NoError(t, err)
	assert.True(t, d("250").Equal(req.Amount))
	assert.Equal(t, modeNotional, req.Mode)

	req, err = parseTradeArgs([]string{"ALL", "btc"})
	require.NoError(t, err)
	assert.True(t, req.All)

	bad := []struct {
		args []string
		want error
	}{
		{args: []string{"1", "2"}, want: domain.ErrInvalidQuantity},
		{args: []string{"0"}, want: domain.ErrInvalidQuantity},
		{args: []string{"btc", "eth"}, want: domain.ErrInvalidSymbol},
		{args: []string{"1", "qty", "cash"}, want: domain.ErrInvalidQuantity},
		{args: []string{"all", "1"}, want: domain.ErrInvalidQuantity},
		{args: []string{"btc", "1e50000000", "qty"}, want: domain.ErrInvalidQuantity},
		{args: []string{"btc", "1e-50000000"}, want: domain.ErrInvalidQuantity},
		{args: []string{"-1e50000000"}, want: domain.ErrInvalidQuantity},
	}
	for _, tt := range bad {
		_, err := parseTradeArgs(tt.args)
		assert.True(t, errors.Is(err, tt.want), "%v: %v", tt.args, err)
	}
}
