package store

import (
	"io"
	"io/ioutil"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	raven "github.com/getsentry/raven-go"
)

// An S3 store keeps bag archives in an S3 bucket. Do not change Bucket or
// Prefix concurrently with calls using the structure.
//
// Because archives are read with io.ReaderAt semantics, Open spools the
// object to a local temporary file first. Bags are usually opened once and
// then read heavily, so the copy is paid a single time.
type S3 struct {
	svc    *s3.S3
	up     *s3manager.Uploader
	down   *s3manager.Downloader
	Bucket string
	Prefix string
}

var _ Store = &S3{}

// NewS3 creates a new S3 store. It will use the given bucket and will prepend
// prefix to all keys. This is to allow for a bucket to be used for more than
// one store. The authorization method and credentials in the session are
// used for all accesses.
func NewS3(bucket, prefix string, awsSession *session.Session) *S3 {
	return &S3{
		svc:    s3.New(awsSession),
		up:     s3manager.NewUploader(awsSession),
		down:   s3manager.NewDownloader(awsSession),
		Bucket: bucket,
		Prefix: prefix,
	}
}

// List returns a list of all the keys in this store. It will only return ones
// that satisfy the store's Prefix, so it is safe to use this on a bucket
// containing other items.
func (s *S3) List() <-chan string {
	out := make(chan string)
	go func() {
		defer close(out)
		input := &s3.ListObjectsV2Input{
			Bucket: aws.String(s.Bucket),
			Prefix: aws.String(s.Prefix),
		}
		err := s.svc.ListObjectsV2Pages(input,
			func(page *s3.ListObjectsV2Output, lastpage bool) bool {
				for _, item := range page.Contents {
					out <- strings.TrimPrefix(*item.Key, s.Prefix)
				}
				return !lastpage
			})
		if err != nil {
			log.Println("S3 List:", s.Prefix, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix})
		}
	}()
	return out
}

// ListPrefix returns the keys in this store that have the given prefix.
// The argument prefix is added to the store's Prefix.
func (s *S3) ListPrefix(prefix string) ([]string, error) {
	var result []string
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(s.Bucket),
		Prefix: aws.String(s.Prefix + prefix),
	}
	err := s.svc.ListObjectsV2Pages(input,
		func(page *s3.ListObjectsV2Output, lastpage bool) bool {
			for _, item := range page.Contents {
				result = append(result, strings.TrimPrefix(*item.Key, s.Prefix))
			}
			return !lastpage
		})
	if err != nil {
		log.Println("S3 ListPrefix:", s.Prefix, prefix, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Pattern": prefix})
	}
	return result, err
}

// Open returns a ReadAtCloser for the content of the given key. The object
// is downloaded into an unlinked temporary file, which provides the random
// access the bag readers need.
func (s *S3) Open(key string) (ReadAtCloser, int64, error) {
	f, err := ioutil.TempFile("", "bagstore-")
	if err != nil {
		return nil, 0, err
	}
	// unlink now so the spool file is reclaimed when closed
	os.Remove(f.Name())
	n, err := s.down.Download(f, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, n, nil
}

// Create returns a WriteCloser to upload content to the given key. The data
// is streamed to S3 as it is written, and the upload is finished when the
// writer is closed.
func (s *S3) Create(key string) (io.WriteCloser, error) {
	_, err := s.svc.HeadObject(&s3.HeadObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err == nil {
		return nil, ErrKeyExists
	}
	rd, wr := io.Pipe()
	w := &s3WriteCloser{pipe: wr, done: make(chan error, 1)}
	go func() {
		_, err := s.up.Upload(&s3manager.UploadInput{
			Bucket: aws.String(s.Bucket),
			Key:    aws.String(s.Prefix + key),
			Body:   rd,
		})
		if err != nil {
			log.Println("S3 Upload:", s.Prefix, key, err)
			raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
			rd.CloseWithError(err)
		}
		w.done <- err
	}()
	return w, nil
}

// Delete removes the given key from the store. The store's Prefix is
// prepended first. It is not an error to delete something that doesn't exist.
func (s *S3) Delete(key string) error {
	_, err := s.svc.DeleteObject(&s3.DeleteObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Prefix + key),
	})
	if err != nil {
		log.Println("S3 Delete:", s.Prefix, key, err)
		raven.CaptureError(err, map[string]string{"Bucket": s.Bucket, "Prefix": s.Prefix, "Key": key})
	}
	return err
}

type s3WriteCloser struct {
	pipe *io.PipeWriter
	done chan error
}

func (w *s3WriteCloser) Write(p []byte) (int, error) {
	return w.pipe.Write(p)
}

func (w *s3WriteCloser) Close() error {
	w.pipe.Close()
	return <-w.done
}
