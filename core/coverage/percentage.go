package coverage

import (
	"database/sql/driver"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Percentage is a coverage percentage in hundredths of a percent (2500 is "25.00").
// It is exchanged as a fixed 2-decimal string.
type Percentage int64

// NewPercentage returns count/total*100 rounded half-up to 2 decimals, or 0 when total is 0.
func NewPercentage(count, total int) Percentage {
	if total <= 0 || count <= 0 {
		return 0
	}
	c, t := int64(count), int64(total)
	return Percentage((c*10000*2 + t) / (2 * t))
}

func (p Percentage) Float64() float64 {
	return float64(p) / 100
}

func (p Percentage) String() string {
	sign := ""
	if p < 0 {
		sign = "-"
		p = -p
	}
	return fmt.Sprintf("%s%d.%02d", sign, p/100, p%100)
}

func (p Percentage) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(p.String())), nil
}

func (p *Percentage) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	return p.parse(s)
}

func (p *Percentage) parse(s string) error {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return errors.Wrapf(err, "parsing percentage %q", s)
	}
	*p = Percentage(math.Round(f * 100))
	return nil
}

// Value implements driver.Valuer.
func (p Percentage) Value() (driver.Value, error) {
	return p.String(), nil
}

// Scan implements sql.Scanner. NUMERIC columns come back as text (postgres) or as numbers (sqlite).
func (p *Percentage) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*p = 0
	case int64:
		*p = Percentage(v * 100)
	case float64:
		*p = Percentage(math.Round(v * 100))
	case []byte:
		return p.parse(string(v))
	case string:
		return p.parse(v)
	default:
		return errors.Errorf("cannot scan %T into Percentage", src)
	}
	return nil
}
