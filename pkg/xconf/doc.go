// Package xconf 提供引擎配置的加载、反序列化与热更新。
//
// 基于 koanf 实现，支持 YAML 与 JSON 两种格式，格式按扩展名自动
// 检测。Watcher 通过 fsnotify 监视配置文件所在目录（而非文件本身，
// 编辑器的原子保存会让文件级监视丢失事件），带防抖地重载并回调。
//
// 引擎启动时一次性加载全部配置；运行期的热更新只对声明为动态的
// 字段生效（如最低记录级别），结构性字段的变更需要重建引擎。
package xconf
