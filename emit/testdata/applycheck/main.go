// Command applycheck installs the redirects of a generated ApplyTo
// function on a fresh registry and resolves each argument against it.
package main

import (
	"fmt"
	"os"

	"github.com/refaktor/bindredirect/redirect"
)

type assembly redirect.AssemblyName

func (a assembly) Identity() redirect.AssemblyName {
	return redirect.AssemblyName(a)
}

func main() {
	reg := redirect.NewRegistry(redirect.WithLoader(redirect.LoaderFunc(func(name redirect.AssemblyName) (redirect.Assembly, error) {
		return assembly(name), nil
	})))
	ApplyTo(reg)
	for _, req := range os.Args[1:] {
		asm, err := reg.Resolve(redirect.Request{Name: req})
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println(asm.Identity())
	}
}
