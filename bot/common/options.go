package common

import "github.com/bwmarrin/discordgo"

// Options indexes command options by name
type Options map[string]*discordgo.ApplicationCommandInteractionDataOption

// NewOptions indexes opts. Subcommand options are not flattened.
func NewOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) Options {
	indexed := make(Options, len(opts))
	for _, opt := range opts {
		indexed[opt.Name] = opt
	}
	return indexed
}

// String returns the named string option or fallback
func (o Options) String(name, fallback string) string {
	if opt, ok := o[name]; ok {
		return opt.StringValue()
	}
	return fallback
}

// Int returns the named integer option or fallback
func (o Options) Int(name string, fallback int64) int64 {
	if opt, ok := o[name]; ok {
		return opt.IntValue()
	}
	return fallback
}
