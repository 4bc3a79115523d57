package utils

import (
	"mime/multipart"
	"net/textproto"
	"testing"
)

func avatarHeader(size int64, contentType string) *multipart.FileHeader {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Type", contentType)
	return &multipart.FileHeader{
		Filename: "avatar.png",
		Header:   h,
		Size:     size,
	}
}

func TestAvatarImageValidator(t *testing.T) {
	v := NewAvatarImageValidator()

	tests := []struct {
		name    string
		fh      *multipart.FileHeader
		wantErr bool
	}{
		{"png within limit", avatarHeader(1024, "image/png"), false},
		{"jpeg within limit", avatarHeader(1024, "image/jpeg"), false},
		{"webp within limit", avatarHeader(1024, "image/webp"), false},
		{"at the limit", avatarHeader(5<<20, "image/png"), false},
		{"over the limit", avatarHeader(5<<20+1, "image/png"), true},
		{"gif rejected", avatarHeader(1024, "image/gif"), true},
		{"missing content type", avatarHeader(1024, ""), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateFile(tt.fh)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFile() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
