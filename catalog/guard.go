package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/order"
)

// Guard rejections.
var (
	ErrAddressIncomplete  = errors.New("address is not a full street address")
	ErrAddressUnconfirmed = errors.New("address was not supplied by the user")
)

var turkishLower = cases.Lower(language.Turkish)

// AddressGuard gates create_flower_order. The address must have at least
// order.MinAddressTokens tokens, one user turn must supply that many of
// them, and every token must occur somewhere in the user's turns. An address
// given across a clarification ("to Kadıköy", then "123 Akasya Sokak")
// passes; a street the user never wrote does not. Other tools pass
// unchecked.
type AddressGuard struct{}

// Check implements the kernel's guard contract. history holds the session
// transcript including the message being served.
func (AddressGuard) Check(_ context.Context, call protocol.ToolCall, history []protocol.Message) error {
	if Name(call.Name) != CreateFlowerOrder {
		return nil
	}

	args, err := decode[CreateOrderArgs](json.RawMessage(call.Arguments))
	if err != nil {
		return err
	}

	want := addressTokens(args.Address)
	if len(want) < order.MinAddressTokens {
		return fmt.Errorf("%w: %q", ErrAddressIncomplete, args.Address)
	}

	seen := make(map[string]struct{})
	street := false
	for _, msg := range history {
		if msg.Role != protocol.RoleUser {
			continue
		}
		turn := addressTokens(msg.Content)
		if countPresent(turn, want) >= order.MinAddressTokens {
			street = true
		}
		for _, t := range turn {
			seen[t] = struct{}{}
		}
	}

	if street {
		for _, t := range want {
			if _, ok := seen[t]; !ok {
				street = false
				break
			}
		}
	}
	if !street {
		return fmt.Errorf("%w: %q", ErrAddressUnconfirmed, args.Address)
	}
	return nil
}

// addressTokens lowercases s with Turkish casing and splits it on spaces,
// punctuation and symbols, so "Sokak,Kadıköy" yields two tokens.
func addressTokens(s string) []string {
	return strings.FieldsFunc(turkishLower.String(s), func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsSymbol(r)
	})
}

// countPresent counts the distinct tokens of want that occur in have.
func countPresent(have, want []string) int {
	set := make(map[string]struct{}, len(have))
	for _, t := range have {
		set[t] = struct{}{}
	}
	n := 0
	counted := make(map[string]struct{}, len(want))
	for _, t := range want {
		if _, dup := counted[t]; dup {
			continue
		}
		if _, ok := set[t]; ok {
			counted[t] = struct{}{}
			n++
		}
	}
	return n
}
