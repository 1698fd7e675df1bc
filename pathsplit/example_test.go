package pathsplit_test

import (
	"fmt"

	"github.com/erraggy/oasplit/pathsplit"
)

func ExampleSplitter_Split() {
	s, _ := pathsplit.New(pathsplit.DefaultPrefix)
	for _, template := range []string{"/farcaster/channel/invite/accept", "/farcaster/user"} {
		route, _ := s.Split(template)
		fmt.Println(route.Resource, route.Action, "paths/"+route.Fragment("yaml"))
	}
	// Output:
	// channel invite_accept paths/channel/invite_accept.yaml
	// user index paths/user/index.yaml
}
