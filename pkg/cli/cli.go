package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"runtime/debug"
	"strings"

	core "github.com/igolaizola/timeslip/pkg/broadcast"
	"github.com/igolaizola/timeslip/pkg/cmd/broadcast"
	"github.com/igolaizola/timeslip/pkg/cmd/script"
	"github.com/igolaizola/timeslip/pkg/cmd/web"
	"github.com/peterbourgon/ff/ffyaml"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
)

func New(version, commit, date string) *ffcli.Command {
	fs := flag.NewFlagSet("timeslip", flag.ExitOnError)

	return &ffcli.Command{
		ShortUsage: "timeslip [flags] <subcommand>",
		FlagSet:    fs,
		Exec: func(context.Context, []string) error {
			return flag.ErrHelp
		},
		Subcommands: []*ffcli.Command{
			newVersionCommand(version, commit, date),
			newScriptCommand(),
			newBroadcastCommand(),
			newWebCommand(),
		},
	}
}

func newVersionCommand(version, commit, date string) *ffcli.Command {
	return &ffcli.Command{
		Name:       "version",
		ShortUsage: "timeslip version",
		ShortHelp:  "print version",
		Exec: func(ctx context.Context, args []string) error {
			v := version
			if v == "" {
				if buildInfo, ok := debug.ReadBuildInfo(); ok {
					v = buildInfo.Main.Version
				}
			}
			if v == "" {
				v = "dev"
			}
			versionFields := []string{v}
			if commit != "" {
				versionFields = append(versionFields, commit)
			}
			if date != "" {
				versionFields = append(versionFields, date)
			}
			fmt.Println(strings.Join(versionFields, " "))
			return nil
		},
	}
}

func newScriptCommand() *ffcli.Command {
	cmd := "script"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &script.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")
	fs.DurationVar(&cfg.Timeout, "timeout", 0, "timeout for each request (0 means default)")

	fs.IntVar(&cfg.Year, "year", 0, "year of the broadcast")
	fs.IntVar(&cfg.Month, "month", 0, "month of the broadcast (1-12)")
	fs.StringVar(&cfg.Output, "output", "program.json", "output file (json, yaml or csv)")

	fs.StringVar(&cfg.OpenAIToken, "openai-token", "", "openai api token")
	fs.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", "", "openai compatible api base url (optional)")
	fs.StringVar(&cfg.Model, "model", "", "chat model used to write the program")
	fs.StringVar(&cfg.Language, "language", "Japanese", "language of the scripts")
	fs.IntVar(&cfg.Segments, "segments", 4, "number of segments")
	fs.IntVar(&cfg.Minutes, "minutes", 30, "length of the show in minutes")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("timeslip %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("TIMESLIP"),
		},
		ShortHelp: fmt.Sprintf("timeslip %s writes the program of a broadcast", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return script.Run(ctx, cfg)
		},
	}
}

func newBroadcastCommand() *ffcli.Command {
	cmd := "broadcast"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &broadcast.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")

	fs.StringVar(&cfg.Input, "input", "", "program file (json, yaml or csv), generated if empty")
	fs.IntVar(&cfg.Year, "year", 0, "year of the broadcast")
	fs.IntVar(&cfg.Month, "month", 0, "month of the broadcast (1-12)")
	fs.DurationVar(&cfg.Delay, "delay", core.DefaultDelay, "pause between a song and the next talk (negative for no pause)")

	fs.StringVar(&cfg.OpenAIToken, "openai-token", "", "openai api token")
	fs.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", "", "openai compatible api base url (optional)")
	fs.StringVar(&cfg.Model, "model", "", "chat model used to write the program")
	fs.StringVar(&cfg.SpeechModel, "speech-model", "", "speech model used for narration")
	fs.StringVar(&cfg.Voice, "voice", "", "voice used for narration")
	fs.StringVar(&cfg.Language, "language", "Japanese", "language of the scripts")
	fs.IntVar(&cfg.Segments, "segments", 4, "number of segments")

	fs.StringVar(&cfg.YoutubeKey, "youtube-key", "", "youtube data api key, music is skipped if empty")
	fs.BoolVar(&cfg.Browser, "browser", false, "open music videos in the system browser")
	fs.DurationVar(&cfg.MaxVideo, "max-video", 0, "maximum time a music video is played (0 means no limit)")
	fs.StringVar(&cfg.FFPlay, "ffplay", "ffplay", "ffplay binary")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "don't play audio, wait for its length instead")
	fs.StringVar(&cfg.Ambience, "ambience", "", "audio file looped under the talk (optional)")
	fs.IntVar(&cfg.AmbienceVol, "ambience-volume", 30, "ambience volume (0-100)")

	fs.StringVar(&cfg.FSType, "fs-type", "", "narration cache type (local, s3), disabled if empty")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "path for local, key:secret@bucket.region for s3")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("timeslip %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("TIMESLIP"),
		},
		ShortHelp: fmt.Sprintf("timeslip %s plays a broadcast on this machine", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return broadcast.Run(ctx, cfg)
		},
	}
}

func newWebCommand() *ffcli.Command {
	cmd := "web"
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	_ = fs.String("config", "", "config file (optional)")

	cfg := &web.Config{}

	fs.BoolVar(&cfg.Debug, "debug", false, "debug mode")
	fs.StringVar(&cfg.Proxy, "proxy", "", "proxy to use")

	fs.StringVar(&cfg.Addr, "addr", ":1337", "address to listen on")
	fsMapVar(fs, &cfg.Credentials, "creds", nil, "credentials to use (semicolon separated) Example: user1:pass1;user2:pass2")
	fs.DurationVar(&cfg.Delay, "delay", core.DefaultDelay, "pause between a song and the next talk (negative for no pause)")

	fs.StringVar(&cfg.OpenAIToken, "openai-token", "", "openai api token")
	fs.StringVar(&cfg.OpenAIBaseURL, "openai-base-url", "", "openai compatible api base url (optional)")
	fs.StringVar(&cfg.Model, "model", "", "chat model used to write the program")
	fs.StringVar(&cfg.SpeechModel, "speech-model", "", "speech model used for narration")
	fs.StringVar(&cfg.Voice, "voice", "", "voice used for narration")
	fs.StringVar(&cfg.Language, "language", "Japanese", "language of the scripts")
	fs.IntVar(&cfg.Segments, "segments", 4, "number of segments")

	fs.StringVar(&cfg.YoutubeKey, "youtube-key", "", "youtube data api key, music is skipped if empty")
	fs.StringVar(&cfg.AmbienceFile, "ambience", "", "audio file served to clients as the ambience loop (optional)")
	fs.BoolVar(&cfg.Ngrok, "ngrok", false, "expose the server through an ngrok tunnel")
	fs.StringVar(&cfg.NgrokBin, "ngrok-bin", "ngrok", "ngrok binary")

	fs.StringVar(&cfg.FSType, "fs-type", "", "narration cache type (local, s3), disabled if empty")
	fs.StringVar(&cfg.FSConn, "fs-conn", "", "path for local, key:secret@bucket.region for s3")

	return &ffcli.Command{
		Name:       cmd,
		ShortUsage: fmt.Sprintf("timeslip %s [flags]", cmd),
		Options: []ff.Option{
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
			ff.WithEnvVarPrefix("TIMESLIP"),
		},
		ShortHelp: fmt.Sprintf("timeslip %s serves the broadcast to a browser", cmd),
		FlagSet:   fs,
		Exec: func(ctx context.Context, args []string) error {
			return web.Serve(ctx, cfg)
		},
	}
}

type mapValue struct {
	v *map[string]string
}

func (m *mapValue) String() string {
	if m.v == nil {
		return ""
	}
	return fmt.Sprintf("%v", map[string]string(*m.v))
}

func (m *mapValue) Set(value string) error {
	if m.v == nil {
		return errors.New("nil map reference")
	}
	pairs := strings.Split(value, ";")
	for _, pair := range pairs {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid map entry: %s", pair)
		}
		(*m.v)[parts[0]] = parts[1]
	}
	return nil
}

func fsMapVar(fs *flag.FlagSet, p *map[string]string, name string, value map[string]string, usage string) {
	if value == nil {
		value = make(map[string]string)
	}
	*p = value
	fs.Var(&mapValue{p}, name, usage)
}
