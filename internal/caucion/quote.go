package caucion

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// Side identifies which leg of the caución a rate belongs to.
type Side string

const (
	// SideLender is the colocador rate, earned by whoever places funds.
	SideLender Side = "lender"
	// SideBorrower is the tomador rate, paid by whoever borrows funds.
	SideBorrower Side = "borrower"
)

// ParseSide accepts the English names as well as the colocador/tomador spelling used by older rule files.
func ParseSide(v string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "lender", "colocador":
		return SideLender, nil
	case "borrower", "tomador":
		return SideBorrower, nil
	default:
		return "", fmt.Errorf("unknown side %q", v)
	}
}

// Label is the human readable name used in notifications.
func (s Side) Label() string {
	if s == SideLender {
		return "Colocador (Lender)"
	}
	return "Tomador (Borrower)"
}

// Field name candidates, in priority order. The upstream API has shipped several
// spellings for the same attribute, so lookups take the first usable one.
var (
	TenorFields = []string{"plazo", "diasVencimiento", "cantidadDias"}

	LenderRateFields = []string{"tasaColocadora", "precioCompra", "puntas.precioCompra", "puntas.0.precioCompra"}

	BorrowerRateFields = []string{"tasaTomadora", "precioVenta", "puntas.precioVenta", "puntas.0.precioVenta"}

	// ListFields are the keys under which an object response may wrap the quote list.
	ListFields = []string{"titulos", "cauciones", "items", "data"}
)

// ErrUnrecognisedBody is returned when a response is valid JSON but carries no quote list.
var ErrUnrecognisedBody = errors.New("caucion: response carries no quote list")

// Quote is a single caución record as returned upstream.
type Quote struct {
	raw gjson.Result
}

// ParseQuotes normalises a quotes response body, either a bare list or an object
// wrapping the list under one of ListFields. Non-object list elements are dropped.
func ParseQuotes(body []byte) ([]Quote, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("caucion: invalid json body")
	}

	root := gjson.ParseBytes(body)
	list, ok := quoteList(root)
	if !ok {
		return nil, ErrUnrecognisedBody
	}

	quotes := make([]Quote, 0, len(list))
	for _, item := range list {
		if !item.IsObject() {
			continue
		}
		quotes = append(quotes, Quote{raw: item})
	}
	return quotes, nil
}

func quoteList(root gjson.Result) ([]gjson.Result, bool) {
	if root.IsArray() {
		return root.Array(), true
	}
	if !root.IsObject() {
		return nil, false
	}
	for _, field := range ListFields {
		if v := root.Get(field); v.IsArray() {
			return v.Array(), true
		}
	}
	return nil, false
}

// Tenor reports the term in days. Records without a positive integral tenor report false.
func (q Quote) Tenor() (int, bool) {
	for _, field := range TenorFields {
		v := q.raw.Get(field)
		switch v.Type {
		case gjson.Number:
			if v.Num > 0 && v.Num == math.Trunc(v.Num) {
				return int(v.Num), true
			}
		case gjson.String:
			if n, err := strconv.Atoi(strings.TrimSpace(v.Str)); err == nil && n > 0 {
				return n, true
			}
		}
	}
	return 0, false
}

// Rate returns the rate for the given side, in percent.
func (q Quote) Rate(side Side) (decimal.Decimal, bool) {
	fields := LenderRateFields
	if side == SideBorrower {
		fields = BorrowerRateFields
	}

	for _, field := range fields {
		if d, ok := toDecimal(q.raw.Get(field)); ok {
			return d, true
		}
	}
	return decimal.Decimal{}, false
}

// Raw returns the original JSON for logging.
func (q Quote) Raw() string {
	return q.raw.Raw
}

func toDecimal(v gjson.Result) (decimal.Decimal, bool) {
	var text string
	switch v.Type {
	case gjson.Number:
		text = v.Raw
	case gjson.String:
		text = strings.TrimSuffix(strings.TrimSpace(v.Str), "%")
		if strings.Contains(text, ",") && !strings.Contains(text, ".") {
			text = strings.ReplaceAll(text, ",", ".")
		}
	default:
		return decimal.Decimal{}, false
	}

	d, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// Set indexes quotes by tenor.
type Set map[int]Quote

// IndexByTenor builds a Set; later records win over earlier ones with the same tenor.
func IndexByTenor(quotes []Quote) Set {
	withTenor := lo.Filter(quotes, func(q Quote, _ int) bool {
		_, ok := q.Tenor()
		return ok
	})
	return lo.KeyBy(withTenor, func(q Quote) int {
		tenor, _ := q.Tenor()
		return tenor
	})
}

// Tenors returns the indexed tenors in ascending order.
func (s Set) Tenors() []int {
	tenors := lo.Keys(map[int]Quote(s))
	slices.Sort(tenors)
	return tenors
}
