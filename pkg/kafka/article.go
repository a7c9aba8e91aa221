package kafka

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/jmespath/go-jmespath"
)

// Article is the document carried by an incoming message
type Article struct {
	ID    string
	Title string
	Body  string
}

// ArticleExpressions are the JMESPath expressions locating article fields
type ArticleExpressions struct {
	ID    string
	Title string
	Body  string
}

// ArticleParser extracts articles from JSON payloads
type ArticleParser struct {
	id    *jmespath.JMESPath
	title *jmespath.JMESPath
	body  *jmespath.JMESPath
}

// NewArticleParser compiles the expressions. Empty expressions default to
// the top-level id, title and body keys.
func NewArticleParser(exprs ArticleExpressions) (*ArticleParser, error) {
	compile := func(field, expr, fallback string) (*jmespath.JMESPath, error) {
		if strings.TrimSpace(expr) == "" {
			expr = fallback
		}
		compiled, err := jmespath.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid %s expression %q: %w", field, expr, err)
		}
		return compiled, nil
	}

	id, err := compile("id", exprs.ID, "id")
	if err != nil {
		return nil, err
	}
	title, err := compile("title", exprs.Title, "title")
	if err != nil {
		return nil, err
	}
	body, err := compile("body", exprs.Body, "body")
	if err != nil {
		return nil, err
	}
	return &ArticleParser{id: id, title: title, body: body}, nil
}

// Parse decodes payload and extracts the article. A payload with neither a
// title nor a body is rejected.
func (p *ArticleParser) Parse(payload []byte) (Article, error) {
	var data any
	if err := json.Unmarshal(payload, &data); err != nil {
		return Article{}, fmt.Errorf("failed to parse message as JSON: %w", err)
	}

	id, err := p.field(p.id, data)
	if err != nil {
		return Article{}, fmt.Errorf("failed to extract id: %w", err)
	}
	title, err := p.field(p.title, data)
	if err != nil {
		return Article{}, fmt.Errorf("failed to extract title: %w", err)
	}
	body, err := p.field(p.body, data)
	if err != nil {
		return Article{}, fmt.Errorf("failed to extract body: %w", err)
	}

	if strings.TrimSpace(title) == "" && strings.TrimSpace(body) == "" {
		return Article{}, fmt.Errorf("message has no title or body")
	}
	return Article{ID: id, Title: title, Body: body}, nil
}

func (p *ArticleParser) field(expr *jmespath.JMESPath, data any) (string, error) {
	value, err := expr.Search(data)
	if err != nil {
		return "", err
	}
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return fmt.Sprint(v), nil
	default:
		return "", fmt.Errorf("unsupported value of type %T", value)
	}
}
