package kv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
)

func TestPrefixFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		want   bson.M
	}{
		{
			name:   "empty prefix matches everything",
			prefix: "",
			want:   bson.M{},
		},
		{
			name:   "plain prefix is anchored",
			prefix: "forum:users:",
			want:   bson.M{"_id": bson.M{"$regex": "^forum:users:"}},
		},
		{
			name:   "regex metacharacters are quoted",
			prefix: "a.b*",
			want:   bson.M{"_id": bson.M{"$regex": `^a\.b\*`}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, prefixFilter(tt.prefix))
		})
	}
}
