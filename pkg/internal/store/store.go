// Package store 实现上传协议使用的两类存储：
// 基于 gorm 的持久化元数据存储，以及基于 KV 的临时上传会话存储.
//
// 两者之间没有事务耦合，调用方需要容忍会话在带外过期.
package store

import "errors"

var (
	// ErrNotFound 元数据或分片不存在.
	ErrNotFound = errors.New("store: record not found")
	// ErrSessionNotFound 上传会话不存在或已过期.
	ErrSessionNotFound = errors.New("store: upload session not found")
)
