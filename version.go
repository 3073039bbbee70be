package yokopoke

// Version is the release of the bot, overridden at build time with
// -ldflags "-X github.com/YOKOPOKE/yokopoke-sub000.Version=...".
var Version = "0.1.0-dev"
