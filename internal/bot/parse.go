package bot

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/paperbot/internal/domain"
)

// Command parsed chat command.
type Command struct {
	// Name lower-cased command without the slash and bot mention.
	Name string
	Args []string
}

// ParseCommand splits "/buy@PaperBot btc 100" into name "buy" and args ["btc", "100"].
// Text that does not start with a slash yields an empty name.
func ParseCommand(text string) Command {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return Command{}
	}

	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}

	return Command{Name: strings.ToLower(name), Args: fields[1:]}
}

type amountMode int

const (
	modeDefault amountMode = iota
	modeNotional
	modeQuantity
)

// tradeRequest arguments of /buy and /sell.
type tradeRequest struct {
	Symbol string
	Amount decimal.Decimal
	// HasAmount false means the configured default amount applies.
	HasAmount bool
	Mode      amountMode
	All       bool
}

// parseTradeArgs accepts symbol, amount and mode keywords in any order:
// "btc 100", "0.5 eth qty", "all btc", "btc 250 cash".
func parseTradeArgs(args []string) (tradeRequest, error) {
	var req tradeRequest

	for _, arg := range args {
		switch strings.ToLower(arg) {
		case "qty", "quantity", "units":
			if req.Mode == modeNotional {
				return tradeRequest{}, errors.Wrap(domain.ErrInvalidQuantity, "choose either qty or cash")
			}
			req.Mode = modeQuantity
			continue
		case "cash", "notional", "amount":
			if req.Mode == modeQuantity {
				return tradeRequest{}, errors.Wrap(domain.ErrInvalidQuantity, "choose either qty or cash")
			}
			req.Mode = modeNotional
			continue
		case "all", "max":
			req.All = true
			continue
		}

		if amount, err := decimal.NewFromString(strings.TrimPrefix(arg, "$")); err == nil {
			if req.HasAmount {
				return tradeRequest{}, errors.Wrapf(domain.ErrInvalidQuantity, "more than one amount given (%s)", arg)
			}
			if err := domain.CheckAmount(domain.ErrInvalidQuantity, "amount", amount); err != nil {
				return tradeRequest{}, err
			}
			if !amount.IsPositive() {
				return tradeRequest{}, errors.Wrapf(domain.ErrInvalidQuantity, "amount %s must be positive", arg)
			}
			req.Amount = amount
			req.HasAmount = true
			continue
		}

		if req.Symbol != "" {
			return tradeRequest{}, errors.Wrapf(domain.ErrInvalidSymbol, "more than one symbol given (%s, %s)", req.Symbol, arg)
		}
		req.Symbol = arg
	}

	if req.All && req.HasAmount {
		return tradeRequest{}, errors.Wrap(domain.ErrInvalidQuantity, "use either all or an amount")
	}

	return req, nil
}

// parseSymbolArg returns the optional single symbol argument.
func parseSymbolArg(args []string) (string, error) {
	switch len(args) {
	case 0:
		return "", nil
	case 1:
		return args[0], nil
	default:
		return "", errors.Wrapf(domain.ErrInvalidSymbol, "expected one symbol, got %d arguments", len(args))
	}
}
