package urlnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := New("host", "localhost:8080", "Pods.Example.com")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"own host", "http://host/uploads/file/abc.mp3", "/uploads/file/abc.mp3"},
		{"own host with port", "http://localhost:8080/uploads/file/a.mp3", "/uploads/file/a.mp3"},
		{"own host any port", "https://pods.example.com:8443/x.mp3?v=2", "/x.mp3?v=2"},
		{"case insensitive", "HTTPS://PODS.EXAMPLE.COM/a%20b.mp3", "/a%20b.mp3"},
		{"own host root", "http://host", "/"},
		{"protocol relative", "//host/a.mp3", "/a.mp3"},
		{"foreign host", "https://cdn.example.org/a.mp3", "https://cdn.example.org/a.mp3"},
		{"other port on foreign host", "http://localhost:9000/a.mp3", "http://localhost:9000/a.mp3"},
		{"relative path", "/uploads/file/a.mp3", "/uploads/file/a.mp3"},
		{"javascript scheme", "javascript:alert(1)", ""},
		{"data scheme", "data:audio/mpeg;base64,AAAA", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}

func TestNormalizePtr(t *testing.T) {
	n := New("host")
	assert.Nil(t, n.NormalizePtr(nil))
	in := "http://host/c.png"
	assert.Equal(t, "/c.png", *n.NormalizePtr(&in))
}

func TestIsPlayable(t *testing.T) {
	assert.True(t, IsPlayable("/uploads/file/a.mp3"))
	assert.True(t, IsPlayable("https://cdn.example.org/a.mp3"))
	assert.False(t, IsPlayable("//evil/a.mp3"))
	assert.False(t, IsPlayable("javascript:alert(1)"))
	assert.False(t, IsPlayable("file:///etc/passwd"))
	assert.False(t, IsPlayable("a.mp3"))
}
