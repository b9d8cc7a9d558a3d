package weave

import (
	"github.com/BurntSushi/toml"
	"github.com/drpcorg/weave/rdx"
	"github.com/drpcorg/weave/utils"
)

type Options struct {
	// ClientID 0 means a fresh id is generated.
	ClientID rdx.ClientID `toml:"client_id"`
	// An open change is sealed once it has that many ops.
	MaxChangeLen int `toml:"max_change_len"`
	// Root containers created at open, as "/name:Type".
	Containers []string `toml:"containers"`
	LogLevel   string   `toml:"log_level"`

	Logger  utils.Logger `toml:"-"`
	Archive Archive      `toml:"-"`
}

func (o *Options) SetDefaults() {
	if o.MaxChangeLen <= 0 {
		o.MaxChangeLen = 1 << 10
	}
	if o.Logger == nil {
		level, err := utils.ParseLevel(o.LogLevel)
		o.Logger = utils.NewDefaultLogger(level)
		if err != nil {
			o.Logger.Warn("bad log level, using info", "level", o.LogLevel)
		}
	}
}

// LoadOptions reads options from a TOML file.
func LoadOptions(path string) (opts Options, err error) {
	_, err = toml.DecodeFile(path, &opts)
	return
}
