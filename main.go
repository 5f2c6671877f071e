package main

import (
	"log"

	_ "github.com/hayeon-dev/ai-gallery/docs"

	"github.com/hayeon-dev/ai-gallery/cmd"
	"github.com/hayeon-dev/ai-gallery/config"
)

// @title                       AI Gallery API
// @version                     1.0
// @description                 Social image gallery with credit-gated AI style transfer.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	log.Printf("ai-gallery %s (%s)", config.Version, config.CommitHash)
	cmd.Execute()
}
