package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticleParser_Parse(t *testing.T) {
	parser, err := NewArticleParser(ArticleExpressions{})
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload string
		want    Article
		wantErr bool
	}{
		{
			name:    "all fields",
			payload: `{"id":"a-1","title":"Apple rallies","body":"AAPL rose"}`,
			want:    Article{ID: "a-1", Title: "Apple rallies", Body: "AAPL rose"},
		},
		{
			name:    "numeric id",
			payload: `{"id":1234,"body":"AAPL rose"}`,
			want:    Article{ID: "1234", Body: "AAPL rose"},
		},
		{
			name:    "missing id",
			payload: `{"title":"Markets"}`,
			want:    Article{Title: "Markets"},
		},
		{name: "not json", payload: `AAPL rose`, wantErr: true},
		{name: "no text", payload: `{"id":"a-2","title":" "}`, wantErr: true},
		{name: "object body", payload: `{"body":{"text":"AAPL"}}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.Parse([]byte(tt.payload))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArticleParser_Expressions(t *testing.T) {
	parser, err := NewArticleParser(ArticleExpressions{
		ID:    "article.uuid",
		Title: "article.headline",
		Body:  "join(' ', article.paragraphs)",
	})
	require.NoError(t, err)

	got, err := parser.Parse([]byte(`{"article":{"uuid":"u-1","headline":"Nvidia beats","paragraphs":["NVDA rose","on demand"]}}`))
	require.NoError(t, err)
	assert.Equal(t, Article{ID: "u-1", Title: "Nvidia beats", Body: "NVDA rose on demand"}, got)

	_, err = NewArticleParser(ArticleExpressions{ID: "article.uuid["})
	assert.Error(t, err)
}
