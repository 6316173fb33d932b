package main

import (
	"flag"
	"log"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/BurntSushi/toml"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	raven "github.com/getsentry/raven-go"

	"github.com/preservio/bagit/server"
	"github.com/preservio/bagit/store"
)

// settings are the configuration options for the daemon, set in a TOML file.
type settings struct {
	// port to listen on, e.g. "14000"
	Port      string
	PProfPort string

	// directory holding the bags to serve
	Bagpath string

	// MySQL dial string for the validation history database. Empty means
	// to use an embedded database inside Bagpath.
	Mysql string

	// where packaged bag archives go. ArchiveDir names a local directory.
	// ArchiveS3 names a bucket as "s3://bucket/prefix" and takes
	// precedence. Credentials and region come from the environment.
	ArchiveDir string
	ArchiveS3  string

	SentryDSN string
}

func main() {
	var configFile = flag.String("config", "", "name of configuration file")
	flag.Parse()

	var config settings
	if *configFile != "" {
		log.Printf("Reading config file %s", *configFile)
		_, err := toml.DecodeFile(*configFile, &config)
		if err != nil {
			log.Println(err)
			return
		}
	}
	if config.Bagpath == "" {
		config.Bagpath = "."
	}
	if config.SentryDSN != "" {
		raven.SetDSN(config.SentryDSN)
	}

	var archives store.Store
	switch {
	case config.ArchiveS3 != "":
		bucket, prefix := parseS3Location(config.ArchiveS3)
		s, err := session.NewSession(aws.NewConfig())
		if err != nil {
			log.Println(err)
			return
		}
		archives = store.NewS3(bucket, prefix, s)
	case config.ArchiveDir != "":
		os.MkdirAll(config.ArchiveDir, 0755)
		archives = store.NewFileSystem(config.ArchiveDir)
	}

	s := &server.RESTServer{
		PortNumber: config.Port,
		PProfPort:  config.PProfPort,
		BagPath:    config.Bagpath,
		MySQL:      config.Mysql,
		Archives:   archives,
	}

	// set up signal handlers
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("Received terminate signal")
		s.Stop()
	}()

	err := s.Run()
	if err != nil {
		log.Println(err)
	}
}

// parseS3Location splits a location "s3://bucket/prefix" into its bucket and
// prefix pieces.
func parseS3Location(loc string) (string, string) {
	u, err := url.Parse(loc)
	if err != nil {
		return loc, ""
	}
	return u.Host, strings.TrimPrefix(u.Path, "/")
}
