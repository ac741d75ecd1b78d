// Package email sends outbound mail for the notification pipeline.
//
// EmailSender is the transport boundary: Postmark in production, DevSender
// (files on disk) in development. Gateway sits on top of a sender and
// implements dispatch.Gateway, translating typed email jobs into sends and
// applying per-category preference suppression at the recipient-address
// level.
package email
