package redirect_test

import (
	"fmt"

	"github.com/refaktor/bindredirect/redirect"
)

type assembly redirect.AssemblyName

func (a assembly) Identity() redirect.AssemblyName { return redirect.AssemblyName(a) }

func ExampleInstall() {
	reg := redirect.NewRegistry(redirect.WithLoader(redirect.LoaderFunc(
		func(name redirect.AssemblyName) (redirect.Assembly, error) {
			fmt.Println("load:", name)
			return assembly(name), nil
		},
	)))

	redirect.MustInstall(reg, redirect.Rule{
		AssemblyName:   "Newtonsoft.Json",
		PublicKeyToken: "30ad4fe6b2a6aeed",
		TargetVersion:  redirect.MustParseVersion("13.0.0.0"),
	})

	_, err := reg.Resolve(redirect.Request{Name: "Newtonsoft.Json, Version=6.0.0.0, Culture=neutral, PublicKeyToken=30ad4fe6b2a6aeed"})
	fmt.Println("err:", err)
	_, err = reg.Resolve(redirect.Request{Name: "Newtonsoft.Json, Version=6.0.0.0"})
	fmt.Println("second attempt resolved:", err == nil)
	// Output:
	// load: Newtonsoft.Json, Version=13.0.0.0, Culture=neutral, PublicKeyToken=30ad4fe6b2a6aeed
	// err: <nil>
	// second attempt resolved: false
}
