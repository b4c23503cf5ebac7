// Package yeelight implements the device.Driver for Yeelight Wi-Fi bulbs.
//
// Discovery uses the bulbs' SSDP-like protocol: an M-SEARCH datagram to the
// multicast group 239.255.255.250:1982, answered by each bulb with an HTTP
// style header block carrying its address and current properties.
//
// Commands use the LAN control protocol: one JSON object per line over TCP
// (port 55443 by default):
//
//	{"id":1,"method":"set_bright","params":[50,"smooth",300]}\r\n
//	{"id":1,"result":["ok"]}\r\n
//
// Bulbs also push unsolicited {"method":"props",...} notifications on the
// same connection; these are skipped while waiting for a reply.
//
// LAN control must be enabled on each bulb in the Yeelight app.
package yeelight
