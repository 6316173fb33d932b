package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/preservio/bagit/archive"
	"github.com/preservio/bagit/bagit"
	"github.com/preservio/bagit/profile"
)

var (
	algorithm = flag.String("a", "", "checksum algorithm to use (sha1 or md5)")
	plain     = flag.Bool("plain", false, "create a minimal bag without tag files")
	workers   = flag.Int("w", 1, "number of parallel downloads for fetch")
	format    = flag.String("f", "zip", "archive format for pack (zip or tgz)")
	usage     = `
bagit <command> <command arguments>

Possible commands:
    create <directory>

    update <directory>

    validate <directory or archive list>

    fetch <directory>

    pack <directory> <destination>

    tags <directory> [<key>=<value> ...]

    info <directory or archive>

    conform <directory or archive> <profile.json>
`
)

func main() {
	flag.Parse()

	args := flag.Args()

	if len(args) == 0 {
		fmt.Println(usage)
		return
	}

	var err error
	switch args[0] {
	case "create":
		err = docreate(args[1])
	case "update":
		err = doupdate(args[1])
	case "validate":
		err = dovalidate(args[1:])
	case "fetch":
		err = dofetch(args[1])
	case "pack":
		err = dopack(args[1], args[2])
	case "tags":
		err = dotags(args[1], args[2:])
	case "info":
		err = doinfo(args[1])
	case "conform":
		err = doconform(args[1], args[2])
	default:
		fmt.Println(usage)
	}
	if err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func docreate(path string) error {
	bag, err := bagit.Create(path, !*plain)
	if err != nil {
		return err
	}
	if err = setAlgorithm(bag); err != nil {
		return err
	}
	return bag.Update()
}

func doupdate(path string) error {
	bag, err := bagit.Open(path)
	if err != nil {
		return err
	}
	if err = setAlgorithm(bag); err != nil {
		return err
	}
	return bag.Update()
}

func setAlgorithm(bag *bagit.Bag) error {
	if *algorithm == "" {
		return nil
	}
	a, err := bagit.ParseAlgorithm(*algorithm)
	if err != nil {
		return err
	}
	bag.SetHashEncoding(a)
	return nil
}

func dovalidate(paths []string) error {
	nbad := 0
	for _, path := range paths {
		bag, err := bagit.Open(path)
		if err != nil {
			fmt.Printf("%s: %s\n", path, err.Error())
			nbad++
			continue
		}
		problems, err := bag.Validate()
		if err != nil {
			fmt.Printf("%s: %s\n", path, err.Error())
			nbad++
			continue
		}
		if len(problems) == 0 {
			fmt.Printf("%s: ok\n", path)
			continue
		}
		nbad++
		for _, p := range problems {
			fmt.Printf("%s: %s\n", path, p.Error())
		}
	}
	if nbad > 0 {
		os.Exit(1)
	}
	return nil
}

func dofetch(path string) error {
	bag, err := bagit.Open(path)
	if err != nil {
		return err
	}
	if err = bag.FetchParallel(*workers); err != nil {
		return err
	}
	for _, p := range bag.Errors() {
		fmt.Println(p.Error())
	}
	return bag.Update()
}

func dopack(path, dest string) error {
	bag, err := bagit.Open(path)
	if err != nil {
		return err
	}
	f, err := archive.ParseFormat(*format)
	if err != nil {
		return err
	}
	out, err := bag.Package(dest, f)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func dotags(path string, pairs []string) error {
	bag, err := bagit.Open(path)
	if err != nil {
		return err
	}
	info := bag.Info()
	if len(pairs) == 0 {
		w := tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
		for _, key := range info.Keys() {
			v, _ := info.Get(key)
			fmt.Fprintf(w, "%s:\t%s\n", key, v)
		}
		w.Flush()
		return nil
	}
	for _, pair := range pairs {
		i := strings.Index(pair, "=")
		if i <= 0 {
			return fmt.Errorf("bad tag %s, expected key=value", pair)
		}
		info.Set(pair[:i], pair[i+1:])
	}
	return bag.Update()
}

func doinfo(path string) error {
	bag, err := bagit.Open(path)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 5, 1, 3, ' ', 0)
	fmt.Fprintf(w, "Path:\t%s\n", bag.Root())
	fmt.Fprintf(w, "Version:\t%s\n", bag.Version())
	fmt.Fprintf(w, "Encoding:\t%s\n", bag.Encoding())
	fmt.Fprintf(w, "Algorithm:\t%s\n", bag.HashEncoding())
	fmt.Fprintf(w, "Extended:\t%v\n", bag.Extended())
	fmt.Fprintf(w, "Payload files:\t%d\n", len(bag.Payload()))
	fmt.Fprintf(w, "Fetch entries:\t%d\n", len(bag.FetchEntries()))
	w.Flush()
	for _, p := range bag.Errors() {
		fmt.Println(p.Error())
	}
	return nil
}

func doconform(path, profilepath string) error {
	bag, err := bagit.Open(path)
	if err != nil {
		return err
	}
	in, err := os.Open(profilepath)
	if err != nil {
		return err
	}
	defer in.Close()
	p, err := profile.Load(in)
	if err != nil {
		return err
	}
	problems := p.Check(bag)
	if len(problems) == 0 {
		fmt.Println("ok")
		return nil
	}
	for _, prob := range problems {
		fmt.Println(prob.Error())
	}
	os.Exit(1)
	return nil
}
