// Command showcasectl is the operator CLI: it creates accounts directly in
// the database and reviews pending projects through the REST API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/samber/do"
	"go.uber.org/zap"

	"github.com/csi-showcase/showcase/internal/bootstrap"
	"github.com/csi-showcase/showcase/internal/infra/httpclient"
	"github.com/csi-showcase/showcase/internal/modules/service"
)

func main() {
	var inj *do.Injector
	cli := &commandLine{
		out: os.Stdout,
		users: func() (service.UserService, error) {
			if inj == nil {
				inj = bootstrap.BuildContainer()
			}
			return do.Invoke[service.UserService](inj)
		},
		newClient: func(server, secret string) apiClient {
			log, _ := zap.NewDevelopment()
			return httpclient.New(httpclient.Options{BaseURL: server, AdminSecret: secret, Logger: log})
		},
	}

	err := cli.run(os.Args)
	if inj != nil {
		_ = inj.Shutdown()
	}
	if err != nil {
		if errors.Is(err, errHelp) {
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
