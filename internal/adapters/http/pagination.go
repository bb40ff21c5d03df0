package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// PaginatedResponse wraps one page of a list with its position.
type PaginatedResponse struct {
	Data       any        `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination is an offset/limit window over Total rows.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

// pageFromQuery reads offset and limit, falling back to the defaults for
// negative, zero or oversized values.
func pageFromQuery(c *fiber.Ctx) Pagination {
	p := Pagination{Offset: c.QueryInt("offset", 0), Limit: c.QueryInt("limit", defaultPageLimit)}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if p.Limit <= 0 || p.Limit > maxPageLimit {
		p.Limit = defaultPageLimit
	}
	return p
}

// slicePage cuts the window out of items and records the total.
func slicePage[T any](items []T, p *Pagination) []T {
	p.Total = len(items)
	if p.Offset >= p.Total {
		return []T{}
	}
	return items[p.Offset:min(p.Offset+p.Limit, p.Total)]
}

// writePage sets the Link header and sends the page.
func writePage(c *fiber.Ctx, data any, p Pagination) error {
	setLinkHeader(c, p)
	return c.JSON(PaginatedResponse{Data: data, Pagination: p})
}

// setLinkHeader adds RFC 8288 first/prev/next/last links. Query parameters
// other than offset and limit are carried over unchanged.
func setLinkHeader(c *fiber.Ctx, p Pagination) {
	last := max(p.Total-p.Limit, 0)

	links := []string{pageLink(c, 0, p.Limit, "first")}
	if p.Offset > 0 {
		links = append(links, pageLink(c, max(p.Offset-p.Limit, 0), p.Limit, "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, pageLink(c, p.Offset+p.Limit, p.Limit, "next"))
	}
	links = append(links, pageLink(c, last, p.Limit, "last"))

	c.Set("Link", strings.Join(links, ", "))
}

func pageLink(c *fiber.Ctx, offset, limit int, rel string) string {
	args := fasthttp.AcquireArgs()
	defer fasthttp.ReleaseArgs(args)

	c.Context().QueryArgs().CopyTo(args)
	args.Set("offset", strconv.Itoa(offset))
	args.Set("limit", strconv.Itoa(limit))
	return fmt.Sprintf(`<%s?%s>; rel="%s"`, c.Path(), args.String(), rel)
}
