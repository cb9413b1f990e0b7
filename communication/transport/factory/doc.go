// Package factory creates communication clients from connection strings.
//
// The "protocol" key of the connection string selects the client type and the
// remaining keys are handed to that client as its settings:
//
//	client, err := factory.Create("protocol=tcp; server=localhost:8888; payloadAware=true")
//
// Only TCP is registered out of the box. Other GSF protocols (tls, udp, file,
// serial, zeromq) are recognised and reported as transport.ErrUnsupportedProtocol;
// additional clients can be added with Register.
package factory
