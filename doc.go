/*
Package cfddns keeps Cloudflare DNS records pointed at a changing IP address.

Usage will always start with [cfddns.New],
which takes a validated [Config] and returns a [Client].
A [Provider] must be registered, normally with [UsingCloudflare].
The [Resolver] defaults to a list of public IP services queried in order.

A single pass is run with [Client.RunDDNS].
[RunDaemon] repeats passes on a fixed interval and is what the ddnscf command uses.
*/
package cfddns
