package s3

import (
	"testing"

	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func TestApplyPrefix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		prefix string
		key    string
		want   string
	}{
		{name: "no prefix", prefix: "", key: "user/file.pdf", want: "user/file.pdf"},
		{name: "simple prefix", prefix: "root", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix trailing slash", prefix: "root/", key: "user/file.pdf", want: "root/user/file.pdf"},
		{name: "prefix and key slashes", prefix: "/root/", key: "/user/file.pdf", want: "root/user/file.pdf"},
		{name: "nested prefix", prefix: "root/sub", key: "user/file.pdf", want: "root/sub/user/file.pdf"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := applyPrefix(tt.prefix, tt.key); got != tt.want {
				t.Fatalf("applyPrefix(%q, %q) = %q, want %q", tt.prefix, tt.key, got, tt.want)
			}
		})
	}
}

func TestPutInputEncryption(t *testing.T) {
	t.Parallel()

	kms := &Store{bucket: "uploads", kmsKeyID: "key-1"}
	in := kms.putInput("screenings/a.pdf", "application/pdf", nil)
	if in.ServerSideEncryption != s3types.ServerSideEncryptionAwsKms {
		t.Fatalf("expected aws:kms, got %q", in.ServerSideEncryption)
	}
	if in.SSEKMSKeyId == nil || *in.SSEKMSKeyId != "key-1" {
		t.Fatalf("expected kms key id, got %v", in.SSEKMSKeyId)
	}
	if *in.Bucket != "uploads" || *in.Key != "screenings/a.pdf" || *in.ContentType != "application/pdf" {
		t.Fatalf("unexpected input: %+v", in)
	}

	plain := &Store{bucket: "uploads"}
	if got := plain.putInput("k", "text/plain", nil).ServerSideEncryption; got != s3types.ServerSideEncryptionAes256 {
		t.Fatalf("expected AES256, got %q", got)
	}
}
