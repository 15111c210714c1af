// Package platform 维护受支持平台的注册表与链接分类逻辑。
//
// 平台子包在 init() 中通过 MustRegister 声明自己的链接前缀与下载偏好，
// 由 internal/config 统一 blank import 激活；运行时只依赖注册表查表，
// 新增平台不需要改动分类器本身。
package platform
