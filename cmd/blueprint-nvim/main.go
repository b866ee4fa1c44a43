package main

import (
	"github.com/neovim/go-client/nvim/plugin"

	"github.com/mat-xc/blueprint-mode/internal/host"
)

// Connects to Neovim over stdio, registers the handlers and serves
// requests until Neovim closes the channel. stdout belongs to the RPC
// channel, so nothing here may print to it.
func main() {
	plugin.Main(func(p *plugin.Plugin) error {
		return host.Register(p)
	})
}
