package cli

import (
	"flag"
	"reflect"
	"testing"
)

func TestMapValue(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	var creds map[string]string
	fsMapVar(fs, &creds, "creds", nil, "")
	if err := fs.Parse([]string{"-creds", "dj:secret;guest:pass:word"}); err != nil {
		t.Fatalf("Parse() err = %v; want nil", err)
	}
	want := map[string]string{"dj": "secret", "guest": "pass:word"}
	if !reflect.DeepEqual(creds, want) {
		t.Fatalf("creds = %v; want %v", creds, want)
	}
	if err := fs.Parse([]string{"-creds", "nopassword"}); err == nil {
		t.Fatalf("Parse() err = nil; want error")
	}
}

func TestCommands(t *testing.T) {
	cmd := New("v1.0.0", "", "")
	var names []string
	for _, sub := range cmd.Subcommands {
		names = append(names, sub.Name)
	}
	want := []string{"version", "script", "broadcast", "web"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("subcommands = %v; want %v", names, want)
	}
}
