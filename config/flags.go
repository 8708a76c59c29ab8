package config

import (
	"flag"
)

// Flags command line options.
type Flags struct {
	ConfigPath string
	EnvFile    string
	Setup      bool
}

// ParseFlags parses args (without the program name).
func ParseFlags(args []string) (Flags, error) {
	var f Flags

	fs := flag.NewFlagSet("paperbot", flag.ContinueOnError)
	fs.StringVar(&f.ConfigPath, "config", "config.yaml", "path to yaml config, missing file means defaults")
	fs.StringVar(&f.EnvFile, "env", ".env", "dotenv file with BOT_TOKEN and other overrides")
	fs.BoolVar(&f.Setup, "setup", false, "run the interactive config wizard and exit")

	if err := fs.Parse(args); err != nil {
		return Flags{}, err
	}
	return f, nil
}
