package integrations_test

import (
	"fmt"

	"github.com/matzehuels/depscope/pkg/integrations"
)

func ExampleNormalizeRepoURL() {
	// npm and crates.io report repositories in several git forms.
	fmt.Println(integrations.NormalizeRepoURL("git+https://github.com/serde-rs/serde.git"))
	fmt.Println(integrations.NormalizeRepoURL("git@github.com:facebook/react.git"))
	fmt.Println(integrations.NormalizeRepoURL("git://github.com/chalk/chalk"))
	// Output:
	// https://github.com/serde-rs/serde
	// https://github.com/facebook/react
	// https://github.com/chalk/chalk
}

func ExamplePathEscape() {
	// AUR search takes the query as a path segment.
	fmt.Println(integrations.PathEscape("python requests"))
	fmt.Println(integrations.URLEncode("@std/path"))
	// Output:
	// python%20requests
	// %40std%2Fpath
}
