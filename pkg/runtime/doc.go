// Package runtime binds a schema id to a standalone form state object.
//
// A Form fetches the schema, derives descriptors and a validator once per
// schema id, and keeps the current value, field errors and descriptors.
// Rendering layers subscribe to the Form and react to its events; the Form
// itself knows nothing about widgets or templates.
//
//	form := runtime.New(runtime.FetcherFunc(api.GetSchema))
//	if err := form.Bind(ctx, schemaID, runtime.BindOptions{}); err != nil {
//		return err
//	}
//	_ = form.SetField("age", 30)
//	submission, err := form.Submit()
package runtime
