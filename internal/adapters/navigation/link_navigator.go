package navigation

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"vendor-map-service/internal/domain"
	"vendor-map-service/internal/ports"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// url.QueryEscape escapes the characters below and writes spaces as '+',
// JavaScript's encodeURIComponent does neither.
var uriComponentFixup = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EncodeURIComponent escapes s the way JavaScript's encodeURIComponent does.
func EncodeURIComponent(s string) string {
	return uriComponentFixup.Replace(url.QueryEscape(s))
}

// LinkNavigator sends the user to the vendor details page. The target link
// is written to the Redirect slot of the calling context.
type LinkNavigator struct {
	page   string
	logger log.Logger
}

var _ ports.Navigator = (*LinkNavigator)(nil)

func NewLinkNavigator(page string, logger log.Logger) *LinkNavigator {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &LinkNavigator{page: page, logger: log.With(logger, "component", "navigator")}
}

// URL returns the details link, e.g.
// vendor-details.html?name=Veggies%20Vendor%201&category=Veggies&address=Address%201%2C%20City
func (n *LinkNavigator) URL(v domain.VendorDetails) string {
	var b strings.Builder
	b.WriteString(n.page)
	b.WriteString("?name=")
	b.WriteString(EncodeURIComponent(v.Name))
	b.WriteString("&category=")
	b.WriteString(EncodeURIComponent(v.Category))
	b.WriteString("&address=")
	b.WriteString(EncodeURIComponent(v.Address))
	return b.String()
}

func (n *LinkNavigator) GoToVendorDetails(ctx context.Context, v domain.VendorDetails) error {
	r, ok := RedirectFrom(ctx)
	if !ok {
		return errors.New("go to vendor details: no redirect slot in context")
	}

	target := n.URL(v)
	r.Set(target)

	level.Info(n.logger).Log("msg", "navigate", "vendor", v.Name, "target", target)
	return nil
}
