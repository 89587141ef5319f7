// Package checkout turns a cart into an outbound order message and a chat
// link that opens it.
package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/pizza-cart/internal/domain/cart"
)

// ErrEmptyCart is returned when composing a message for a cart with no lines.
var ErrEmptyCart = errors.New("cart is empty")

const (
	// DefaultGreeting opens every order message.
	DefaultGreeting = "Hello Pizza Palace! I would like to order:"
	// DefaultBaseURL is the click-to-chat endpoint the phone number is appended to.
	DefaultBaseURL = "https://wa.me/"
)

// Config holds the composer settings.
type Config struct {
	Phone    string
	Greeting string
	BaseURL  string
}

// Message is a composed order.
type Message struct {
	Text string
	URL  string
}

// Composer builds order messages. It only reads the view it is given.
type Composer struct {
	phone    string
	greeting string
	baseURL  string
}

// NewComposer creates a Composer, filling unset fields with defaults.
func NewComposer(cfg Config) *Composer {
	c := &Composer{
		phone:    cfg.Phone,
		greeting: cfg.Greeting,
		baseURL:  cfg.BaseURL,
	}
	if c.greeting == "" {
		c.greeting = DefaultGreeting
	}
	if c.baseURL == "" {
		c.baseURL = DefaultBaseURL
	}
	return c
}

// Compose renders v as:
//
//	Hello Pizza Palace! I would like to order:
//
//	- Margherita (x2) - $16.00
//	- Pepperoni (x1) - $10.00
//
//	*Total Price: $26.00*
func (c *Composer) Compose(v cart.View) (Message, error) {
	if v.Empty() {
		return Message{}, ErrEmptyCart
	}

	var b strings.Builder
	b.WriteString(c.greeting)
	b.WriteString("\n\n")
	for _, l := range v.Lines {
		fmt.Fprintf(&b, "- %s (x%d) - $%s\n", l.Name, l.Quantity, l.Subtotal.StringFixed(2))
	}
	fmt.Fprintf(&b, "\n*Total Price: $%s*", v.Total.StringFixed(2))

	text := b.String()
	return Message{
		Text: text,
		URL:  c.baseURL + url.PathEscape(c.phone) + "?" + url.Values{"text": {text}}.Encode(),
	}, nil
}
